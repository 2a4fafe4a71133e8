// Package harmonic adapts the Harmonic market intelligence API.
// Harmonic covers the world outside the firm's CRM: startup profiles,
// founder and employee histories, investor portfolios, and funding
// rounds.
package harmonic

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/result"
	"github.com/springbank-ai/netagent/schema"
	"github.com/springbank-ai/netagent/tool"
)

// Name is the provider identifier used in results and budgets.
const Name = "harmonic"

// DefaultBaseURL is the production Harmonic endpoint.
const DefaultBaseURL = "https://api.harmonic.ai"

const defaultPageSize = 100

// Adapter serves the Harmonic tool set.
type Adapter struct {
	client   *provider.Client
	pageSize int
	maxPages int
	tools    []*tool.Tool
}

// New creates an adapter. Harmonic authenticates with a bearer token.
func New(cfg provider.Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("harmonic: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{
		client:   provider.NewClient(Name, baseURL, provider.BearerAuth(cfg.APIKey), &cfg),
		pageSize: cfg.PageSize,
		maxPages: cfg.GetMaxPages(),
	}
	if a.pageSize <= 0 || a.pageSize > 1000 {
		a.pageSize = defaultPageSize
	}

	a.tools = a.buildTools()
	return a, nil
}

// Name implements provider.Adapter.
func (a *Adapter) Name() string { return Name }

// Tools implements provider.Adapter.
func (a *Adapter) Tools() []*tool.Tool { return a.tools }

func (a *Adapter) buildTools() []*tool.Tool {
	pageParams := func(extra map[string]schema.JSON, required ...string) schema.JSON {
		props := map[string]schema.JSON{
			"limit": schema.IntWithDesc("results per page").WithRange(1, 1000),
		}
		for k, v := range extra {
			props[k] = v
		}
		return schema.Object(props, required...)
	}

	specs := []struct {
		desc    tool.Descriptor
		handler tool.Handler
	}{
		{
			desc: tool.Descriptor{
				Name:        "search_companies",
				Provider:    Name,
				Description: "Search the startup universe for companies by name, domain, or keyword.",
				Parameters: pageParams(map[string]schema.JSON{
					"query": schema.StringWithDesc("name, domain, or keyword"),
				}, "query"),
			},
			handler: a.searchCompanies,
		},
		{
			desc: tool.Descriptor{
				Name:        "search_people",
				Provider:    Name,
				Description: "Search for founders, operators, and employees across the startup universe.",
				Parameters: pageParams(map[string]schema.JSON{
					"query": schema.StringWithDesc("name or keyword"),
				}, "query"),
			},
			handler: a.searchPeople,
		},
		{
			desc: tool.Descriptor{
				Name:        "search_investors",
				Provider:    Name,
				Description: "Search for venture firms and angel investors.",
				Parameters: pageParams(map[string]schema.JSON{
					"query": schema.StringWithDesc("firm or investor name"),
				}, "query"),
			},
			handler: a.searchInvestors,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_company_people",
				Provider:    Name,
				Description: "List the people currently or formerly at a company, with roles.",
				Parameters: pageParams(map[string]schema.JSON{
					"company_id": schema.StringWithDesc("Harmonic company id"),
				}, "company_id"),
			},
			handler: a.getCompanyPeople,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_person_network",
				Provider:    Name,
				Description: "List a person's first-degree professional connections.",
				Parameters: pageParams(map[string]schema.JSON{
					"person_id": schema.StringWithDesc("Harmonic person id"),
				}, "person_id"),
			},
			handler: a.getPersonNetwork,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_investor_portfolio",
				Provider:    Name,
				Description: "List the companies an investor has backed.",
				Parameters: pageParams(map[string]schema.JSON{
					"investor_id": schema.StringWithDesc("Harmonic investor id"),
				}, "investor_id"),
			},
			handler: a.getInvestorPortfolio,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_company_funding",
				Provider:    Name,
				Description: "Get a company's funding rounds with amounts, dates, and participating investors.",
				Parameters: schema.Object(map[string]schema.JSON{
					"company_id": schema.StringWithDesc("Harmonic company id"),
				}, "company_id"),
			},
			handler: a.getCompanyFunding,
		},
	}

	tools := make([]*tool.Tool, 0, len(specs))
	for _, s := range specs {
		t, err := tool.New(s.desc, s.handler)
		if err != nil {
			panic(err)
		}
		tools = append(tools, t)
	}
	return tools
}

// paginate walks a limit/offset endpoint until it runs dry or hits the
// page ceiling, handing each decoded page to collect.
func paginate[T any](ctx context.Context, a *Adapter, operation, path string, q url.Values, limit int, res *result.ToolResult, collect func(page T) int) error {
	offset := 0
	for page := 0; page < a.maxPages; page++ {
		q.Set("limit", strconv.Itoa(limit))
		if offset > 0 {
			q.Set("offset", strconv.Itoa(offset))
		}

		var body T
		if err := a.client.GetJSON(ctx, operation, path, q, &body); err != nil {
			return err
		}

		n := collect(body)
		if n < limit {
			return nil
		}
		offset += n
	}
	res.Truncated = true
	return nil
}

func (a *Adapter) searchCompanies(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "search_companies", Provider: Name}

	q := url.Values{}
	q.Set("q", p.String("query", ""))
	err := paginate(ctx, a, "search_companies", "/search/companies", q,
		p.Int("limit", a.pageSize), res, func(page companiesPage) int {
			for _, c := range page.Results {
				res.Entities = append(res.Entities, c.normalize())
			}
			return len(page.Results)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) searchPeople(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "search_people", Provider: Name}

	q := url.Values{}
	q.Set("q", p.String("query", ""))
	err := paginate(ctx, a, "search_people", "/search/people", q,
		p.Int("limit", a.pageSize), res, func(page peoplePage) int {
			for _, per := range page.Results {
				ents, rels := per.normalize()
				res.Entities = append(res.Entities, ents...)
				res.Relationships = append(res.Relationships, rels...)
			}
			return len(page.Results)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) searchInvestors(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "search_investors", Provider: Name}

	q := url.Values{}
	q.Set("q", p.String("query", ""))
	err := paginate(ctx, a, "search_investors", "/search/investors", q,
		p.Int("limit", a.pageSize), res, func(page investorsPage) int {
			for _, inv := range page.Results {
				res.Entities = append(res.Entities, inv.normalize())
			}
			return len(page.Results)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) getCompanyPeople(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_company_people", Provider: Name}
	companyID := p.ID("company_id")

	err := paginate(ctx, a, "get_company_people", "/companies/"+companyID+"/people", url.Values{},
		p.Int("limit", a.pageSize), res, func(page peoplePage) int {
			for _, per := range page.Results {
				ents, rels := per.normalizeAt(companyID)
				res.Entities = append(res.Entities, ents...)
				res.Relationships = append(res.Relationships, rels...)
			}
			return len(page.Results)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) getPersonNetwork(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_person_network", Provider: Name}
	personID := p.ID("person_id")

	err := paginate(ctx, a, "get_person_network", "/people/"+personID+"/network", url.Values{},
		p.Int("limit", a.pageSize), res, func(page networkPage) int {
			for _, conn := range page.Connections {
				ent, rel := conn.normalize(personID)
				res.Entities = append(res.Entities, ent)
				res.Relationships = append(res.Relationships, rel)
			}
			return len(page.Connections)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) getInvestorPortfolio(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_investor_portfolio", Provider: Name}
	investorID := p.ID("investor_id")

	err := paginate(ctx, a, "get_investor_portfolio", "/investors/"+investorID+"/portfolio", url.Values{},
		p.Int("limit", a.pageSize), res, func(page companiesPage) int {
			for _, c := range page.Results {
				res.Entities = append(res.Entities, c.normalize())
				res.Relationships = append(res.Relationships,
					*investedIn(investorID, c.ID))
			}
			return len(page.Results)
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) getCompanyFunding(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_company_funding", Provider: Name}
	companyID := p.ID("company_id")

	var body fundingPage
	if err := a.client.GetJSON(ctx, "get_company_funding", "/companies/"+companyID+"/funding", nil, &body); err != nil {
		return nil, err
	}
	for _, round := range body.FundingRounds {
		ents, rels := round.normalize(companyID)
		res.Entities = append(res.Entities, ents...)
		res.Relationships = append(res.Relationships, rels...)
	}
	return res, nil
}
