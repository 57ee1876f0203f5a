package usecase

import "github.com/cartgenie/backend/internal/domain"

const (
	researchAgentRole = "Product Research Specialist"
	analysisAgentRole = "Savings Analyst"
)

// NewResearchAgent returns the agent that identifies cart products and gathers
// their prices from the catalogue, the price graph and live product pages
func NewResearchAgent(tools ...domain.Tool) Agent {
	return Agent{
		Role: researchAgentRole,
		Goal: "Identify the products in the user's cart and find their prices across different retailers. " +
			"Use the catalogue and price graph for known products and scrape product pages for new or stale data.",
		Backstory: "You track prices across online marketplaces, grocery apps and food delivery platforms. " +
			"You match listings that name the same product in different ways and you never report a price you did not find.",
		Tools: tools,
	}
}

// NewAnalysisAgent returns the agent that turns research findings into savings recommendations
func NewAnalysisAgent() Agent {
	return Agent{
		Role: analysisAgentRole,
		Goal: "Analyze the collected price data and find the best possible savings for the user, " +
			"presenting them in the required JSON format.",
		Backstory: "You are a careful shopping analyst. You only recommend an alternative when it is the same product, " +
			"in the same currency, and strictly cheaper than what the user pays today.",
	}
}

// resultContract is the JSON shape the analysis task must produce
const resultContract = `{
  "originalTotal": number,
  "optimizedTotal": number,
  "currency": "ISO 4217 code",
  "totalSavings": number,
  "recommendations": [
    {
      "originalItem": {"productTitle": string, "quantity": integer, "price": number, "currency": string, "url": string},
      "cheapestAlternative": {"productTitle": string, "price": number, "currency": string, "retailer": string, "url": string}
    }
  ]
}`

// NewResearchTask describes the research stage for one cart
func NewResearchTask(agent Agent, cartContext string) Task {
	return Task{
		Name: "research",
		Description: "Research every item in the user's cart.\n" +
			"For each item, use find_similar_products to locate matching catalogue products, " +
			"get_product_prices to read their prices at the user's postal code, and scrape_product_page " +
			"for any product page that is missing from the catalogue or has no price for the postal code.\n\n" +
			cartContext,
		ExpectedOutput: "A detailed list of products with the best price found for each, including the retailer, URL, and currency.",
		Agent:          agent,
	}
}

// NewAnalysisTask describes the analysis stage for one cart
func NewAnalysisTask(agent Agent, cartContext string) Task {
	return Task{
		Name: "analysis",
		Description: "Using the research findings, pick for each cart item the cheapest alternative that is strictly cheaper " +
			"than the price the user pays and in the same currency. Leave out items without such an alternative. " +
			"Compute the original total, the optimized total and the total savings.\n" +
			"Respond with a single JSON object of this shape and nothing else:\n" + resultContract + "\n\n" +
			cartContext,
		ExpectedOutput: "A JSON object summarizing the total savings and providing a list of recommendations for each item, matching the API contract.",
		Agent:          agent,
		JSONOutput:     true,
	}
}
