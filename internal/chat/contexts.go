package chat

import "strings"

// ModuleContext is a dashboard module the assistant can be scoped to.
type ModuleContext struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Route       string `json:"route"`
	Description string `json:"description"`
}

// Contexts lists the known modules. The first entry is the default.
var Contexts = []ModuleContext{
	{"economic-forecasting", "Economic Forecasting", "/economic-indicators", "Macroeconomic indicators, inflation and interest rate trends"},
	{"business-forecast", "Business Forecast", "/business-forecast", "Sales projections, demand planning and scenario forecasts"},
	{"tax-compliance", "Tax & Compliance", "/tax-compliance", "Tax obligations, filing deadlines and regulatory compliance"},
	{"pricing-strategy", "Pricing Strategy", "/pricing-strategy", "Price positioning, elasticity and margin optimization"},
	{"revenue-strategy", "Revenue Strategy", "/revenue-strategy", "Revenue streams, growth levers and forecasting"},
	{"market-analysis", "Market & Competitive Analysis", "/market-competitive-analysis", "Market size, competitors and positioning"},
	{"loan-funding", "Loans & Funding", "/loan-funding", "Loan options, funding sources and cost of capital"},
	{"inventory-supply", "Inventory & Supply Chain", "/inventory-supply-chain", "Stock levels, suppliers and supply chain risk"},
	{"financial-advisory", "Financial Advisory", "/financial-advisory", "Cash flow, budgeting and financial health"},
	{"policy-economic", "Policy & Economic Analysis", "/policy-economic-analysis", "Government policy impacts on business and the economy"},
	{"business-feasibility", "Business Feasibility", "/business-feasibility", "Evaluating whether a business idea is viable"},
}

// routeAliases maps secondary routes to their module.
var routeAliases = map[string]string{
	"/pricing-strategies":     "pricing-strategy",
	"/revenue-forecasting":    "revenue-strategy",
	"/loan-research":          "loan-funding",
	"/supply-chain-analytics": "inventory-supply",
	"/InventorySupplyChain":   "inventory-supply",
}

// DefaultContext returns the module used when none is selected.
func DefaultContext() ModuleContext {
	return Contexts[0]
}

// Lookup finds a module by ID.
func Lookup(id string) (ModuleContext, bool) {
	for _, c := range Contexts {
		if c.ID == id {
			return c, true
		}
	}
	return ModuleContext{}, false
}

// ContextForRoute maps a page route to its module. Sub-pages such as
// /business-feasibility/<id> resolve to their parent module.
func ContextForRoute(path string) (ModuleContext, bool) {
	path = strings.TrimRight(path, "/")
	for path != "" {
		for _, c := range Contexts {
			if c.Route == path {
				return c, true
			}
		}
		if id, ok := routeAliases[path]; ok {
			return Lookup(id)
		}
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			break
		}
		path = path[:i]
	}
	return ModuleContext{}, false
}
