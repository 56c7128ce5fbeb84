package arweave

// txStatusWire is the 200 response of GET /tx/{id}/status.
type txStatusWire struct {
	BlockHeight           int    `json:"block_height"`
	BlockIndepHash        string `json:"block_indep_hash"`
	NumberOfConfirmations int    `json:"number_of_confirmations"`
}

// gqlRequest is a GraphQL POST body.
type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// gqlTagFilter is the tag filter input of the gateway GraphQL schema.
type gqlTagFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// gqlResponse is the subset of the GraphQL search response we consume.
type gqlResponse struct {
	Data struct {
		Transactions struct {
			Edges []struct {
				Node struct {
					ID    string `json:"id"`
					Owner struct {
						Address string `json:"address"`
					} `json:"owner"`
					Data struct {
						Size string `json:"size"`
					} `json:"data"`
					Tags []struct {
						Name  string `json:"name"`
						Value string `json:"value"`
					} `json:"tags"`
					Block *struct {
						Height int `json:"height"`
					} `json:"block"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"transactions"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}
