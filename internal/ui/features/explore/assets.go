package explore

import "github.com/leapstack-labs/leapexplore/internal/ui/pages"

// Page templates.
const (
	indexTemplate        = "index.html"
	selectFieldsTemplate = "select_fields.html"
	buildQueryTemplate   = "build_query.html"
	resultsTemplate      = "results.html"
	errorsTemplate       = "errors.html"
)

const buildQueryDescription = "Click on a field of the Query Builder to add an element to your query. " +
	"The elements selected in the previous step will appear and you will be able to insert " +
	"them in the query builder. Click on plus/minus icons to add/remove criteria. " +
	"You can save queries to build more complex queries and you will retrieve them on your next connection. " +
	"When your query is done, please click on **Submit Query** to get XML documents that match the criteria."

const buildQueryTitle = "query builder"

func indexAssets() pages.Assets {
	return pages.Assets{
		CSS: []string{"core_explore_example_app/user/css/style.css"},
	}
}

func selectFieldsAssets() pages.Assets {
	return pages.Assets{
		JS: []pages.Script{
			{Path: "core_main_app/common/js/XMLTree.js"},
			{Path: "core_parser_app/js/autosave.js"},
			{Path: "core_parser_app/js/autosave_checkbox.js"},
			{Path: "core_parser_app/js/autosave.raw.js", IsRaw: true},
			{Path: "core_parser_app/js/buttons.js"},
			{Path: "core_explore_example_app/user/js/buttons.raw.js", IsRaw: true},
			{Path: "core_parser_app/js/modules.js"},
			{Path: "core_parser_app/js/choice.js"},
			{Path: "core_explore_example_app/user/js/choice.raw.js", IsRaw: true},
			{Path: "core_explore_example_app/user/js/select_fields.js"},
			{Path: "core_explore_example_app/user/js/select_fields.raw.js", IsRaw: true},
		},
		CSS: []string{
			"core_explore_example_app/user/css/xsd_form.css",
			"core_explore_example_app/user/css/style.css",
		},
	}
}

func buildQueryAssets() pages.Assets {
	return pages.Assets{
		JS: []pages.Script{
			{Path: "core_explore_example_app/user/js/build_query.js"},
			{Path: "core_explore_example_app/user/js/build_query.raw.js", IsRaw: true},
			{Path: "core_parser_app/js/autosave.raw.js", IsRaw: true},
			{Path: "core_parser_app/js/choice.js"},
			{Path: "core_main_app/common/js/modals/error_page_modal.js", IsRaw: true},
		},
		CSS: []string{
			"core_explore_example_app/user/css/query_builder.css",
			"core_explore_example_app/user/css/xsd_form.css",
		},
	}
}

func buildQueryModals() []string {
	return []string{
		"custom_tree.html",
		"sub_elements_query_builder.html",
		"error_page_modal.html",
		"delete_all_queries.html",
		"delete_query.html",
	}
}

// resultsAssets returns the assets and modals of the results page.
func resultsAssets(exporters bool) (pages.Assets, []string) {
	assets := pages.Assets{
		JS: []pages.Script{
			{Path: "core_explore_common_app/user/js/results.js"},
			{Path: "core_explore_common_app/user/js/results.raw.js", IsRaw: true},
			{Path: "core_main_app/common/js/XMLTree.js"},
			{Path: "core_main_app/common/js/modals/error_page_modal.js", IsRaw: true},
			{Path: "core_explore_common_app/user/js/button_persistent_query.js"},
		},
		CSS: []string{
			"core_explore_common_app/user/css/query_result.css",
			"core_main_app/common/css/XMLTree.css",
			"core_explore_common_app/user/css/results.css",
		},
	}
	modals := []string{
		"error_page_modal.html",
		"persistent_query_modal.html",
	}

	if exporters {
		assets.JS = append(assets.JS, pages.Script{Path: "core_exporters_app/user/js/exporters/list/modals/list_exporters_selector.js"})
		modals = append(modals, "list_exporters_selector.html")
	}
	return assets, modals
}
