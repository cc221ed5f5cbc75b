package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchErrorFixesTool = mcp.NewTool("search_error_fixes",
	mcp.WithDescription("Search the knowledge base for proven fixes to similar test errors. Returns fixes ranked by match and historical success rate, or a no-match notice."),
	mcp.WithString("error_message",
		mcp.Required(),
		mcp.Description("The error text from the test failure"),
	),
	mcp.WithString("error_type",
		mcp.Description("Restrict to one error type"),
		mcp.Enum("locator", "timeout", "interaction", "assertion", "visibility", "authentication", "navigation", "other"),
	),
	mcp.WithNumber("n_results",
		mcp.Description("Maximum number of fixes to return (default 3)"),
	),
)

var storeSuccessfulFixTool = mcp.NewTool("store_successful_fix",
	mcp.WithDescription("Store a fix that passed re-verification so future runs can reuse it."),
	mcp.WithString("error_message",
		mcp.Required(),
		mcp.Description("The original error text"),
	),
	mcp.WithString("fix_applied",
		mcp.Required(),
		mcp.Description("Description or code of the fix that worked"),
	),
	mcp.WithString("error_type",
		mcp.Description("Error category; unknown values are stored as other"),
	),
	mcp.WithString("test_file",
		mcp.Description("Test file the fix was applied to"),
	),
	mcp.WithNumber("success_rate",
		mcp.Description("Success rate percentage 0-100 (default 100)"),
		mcp.Min(0),
		mcp.Max(100),
	),
)

var searchCodePatternsTool = mcp.NewTool("search_code_patterns",
	mcp.WithDescription("Search for reusable browser test code patterns matching a task description."),
	mcp.WithString("description",
		mcp.Required(),
		mcp.Description("What the code needs to do"),
	),
	mcp.WithString("pattern_type",
		mcp.Description("Restrict to one pattern type"),
		mcp.Enum("navigation", "form", "wait", "assertion", "locator", "other"),
	),
	mcp.WithNumber("n_results",
		mcp.Description("Maximum number of patterns to return (default 3)"),
	),
)

var storeCodePatternTool = mcp.NewTool("store_code_pattern",
	mcp.WithDescription("Store a reusable code pattern."),
	mcp.WithString("description",
		mcp.Required(),
		mcp.Description("What the pattern does"),
	),
	mcp.WithString("code",
		mcp.Description("The code snippet"),
	),
	mcp.WithString("pattern_type",
		mcp.Description("Pattern category; unknown values are stored as other"),
	),
	mcp.WithString("language",
		mcp.Description("Programming language (default typescript)"),
	),
)

var searchTestPlansTool = mcp.NewTool("search_test_plans",
	mcp.WithDescription("Search for test plan templates matching a scenario."),
	mcp.WithString("scenario_description",
		mcp.Required(),
		mcp.Description("The scenario to plan tests for"),
	),
	mcp.WithString("plan_type",
		mcp.Description("Restrict to one plan type"),
		mcp.Enum("smoke", "e2e", "crud", "navigation", "regression", "other"),
	),
	mcp.WithNumber("n_results",
		mcp.Description("Maximum number of templates to return (default 3)"),
	),
)

var storeTestPlanTool = mcp.NewTool("store_test_plan",
	mcp.WithDescription("Store a test plan template."),
	mcp.WithString("scenario",
		mcp.Required(),
		mcp.Description("Scenario the plan covers"),
	),
	mcp.WithString("steps",
		mcp.Description("The plan steps"),
	),
	mcp.WithString("plan_type",
		mcp.Description("Plan category; unknown values are stored as other"),
	),
)

var searchApplicationKnowledgeTool = mcp.NewTool("search_application_knowledge",
	mcp.WithDescription("Look up cached UI exploration for a scenario. The result tier tells whether to skip exploration (EXACT), start from the cached steps (PARTIAL) or explore fully (NONE)."),
	mcp.WithString("scenario_description",
		mcp.Required(),
		mcp.Description("The scenario to find cached exploration for"),
	),
	mcp.WithString("action",
		mcp.Description("UI action of the scenario; inferred from the description when omitted"),
		mcp.Enum("create", "edit", "delete", "view", "navigate"),
	),
	mcp.WithString("module",
		mcp.Description("Application module, e.g. Accounts"),
	),
	mcp.WithNumber("n_results",
		mcp.Description("Maximum number of results (default 3)"),
	),
)

var storeApplicationKnowledgeTool = mcp.NewTool("store_application_knowledge",
	mcp.WithDescription("Cache the narrative of a successful UI exploration for later reuse."),
	mcp.WithString("scenario",
		mcp.Required(),
		mcp.Description("Scenario that was explored"),
	),
	mcp.WithString("action",
		mcp.Required(),
		mcp.Description("One of create, edit, delete, view, navigate"),
	),
	mcp.WithString("module",
		mcp.Description("Application module"),
	),
	mcp.WithString("narrative",
		mcp.Required(),
		mcp.Description("Step by step navigation, locators and observations"),
	),
)

var getRAGStatsTool = mcp.NewTool("get_rag_stats",
	mcp.WithDescription("Get the number of stored items per knowledge collection."),
)
