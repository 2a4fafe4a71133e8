// Package affinity adapts the Affinity CRM API. Affinity holds the
// firm's own relationship data: who knows whom, interaction history,
// and the people and organizations tracked in the CRM.
package affinity

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/result"
	"github.com/springbank-ai/netagent/schema"
	"github.com/springbank-ai/netagent/tool"
	"github.com/springbank-ai/netagent/toolerr"
)

// Name is the provider identifier used in results and budgets.
const Name = "affinity"

// DefaultBaseURL is the production Affinity endpoint.
const DefaultBaseURL = "https://api.affinity.co"

const defaultPageSize = 100

// Adapter serves the Affinity tool set.
type Adapter struct {
	client   *provider.Client
	pageSize int
	maxPages int
	tools    []*tool.Tool
}

// New creates an adapter. The API key is required; Affinity expects it
// as the basic-auth password with an empty username.
func New(cfg provider.Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("affinity: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{
		client:   provider.NewClient(Name, baseURL, provider.BasicAuth("", cfg.APIKey), &cfg),
		pageSize: cfg.PageSize,
		maxPages: cfg.GetMaxPages(),
	}
	if a.pageSize <= 0 || a.pageSize > 500 {
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
	specs := []struct {
		desc    tool.Descriptor
		handler tool.Handler
	}{
		{
			desc: tool.Descriptor{
				Name:        "search_persons",
				Provider:    Name,
				Description: "Search the firm's CRM for people by name or email. Returns the people plus their current organization affiliations.",
				Parameters: schema.Object(map[string]schema.JSON{
					"term":      schema.StringWithDesc("name or email fragment to search for"),
					"page_size": schema.IntWithDesc("results per page").WithRange(1, 500),
				}, "term"),
			},
			handler: a.searchPersons,
		},
		{
			desc: tool.Descriptor{
				Name:        "search_organizations",
				Provider:    Name,
				Description: "Search the firm's CRM for organizations by name or domain.",
				Parameters: schema.Object(map[string]schema.JSON{
					"term":      schema.StringWithDesc("name or domain fragment to search for"),
					"page_size": schema.IntWithDesc("results per page").WithRange(1, 500),
				}, "term"),
			},
			handler: a.searchOrganizations,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_person",
				Provider:    Name,
				Description: "Fetch one CRM person by id, including current organization affiliations.",
				Parameters: schema.Object(map[string]schema.JSON{
					"person_id": schema.IntWithDesc("Affinity person id"),
				}, "person_id"),
			},
			handler: a.getPerson,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_organization",
				Provider:    Name,
				Description: "Fetch one CRM organization by id, including the people affiliated with it.",
				Parameters: schema.Object(map[string]schema.JSON{
					"organization_id": schema.IntWithDesc("Affinity organization id"),
				}, "organization_id"),
			},
			handler: a.getOrganization,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_relationship_strengths",
				Provider:    Name,
				Description: "Get how strongly the firm's team members are connected to an external person, scored 0 to 1.",
				Parameters: schema.Object(map[string]schema.JSON{
					"external_id": schema.IntWithDesc("Affinity id of the external person"),
					"internal_id": schema.IntWithDesc("optional Affinity id of a specific team member"),
				}, "external_id"),
			},
			handler: a.getRelationshipStrengths,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_interactions",
				Provider:    Name,
				Description: "List logged interactions (emails, meetings, calls) for a person or organization.",
				Parameters: schema.Object(map[string]schema.JSON{
					"person_id":       schema.IntWithDesc("Affinity person id"),
					"organization_id": schema.IntWithDesc("Affinity organization id"),
					"page_size":       schema.IntWithDesc("results per page").WithRange(1, 500),
				}),
			},
			handler: a.getInteractions,
		},
	}

	tools := make([]*tool.Tool, 0, len(specs))
	for _, s := range specs {
		t, err := tool.New(s.desc, s.handler)
		if err != nil {
			// Descriptors are static; a bad one is a programming error.
			panic(err)
		}
		tools = append(tools, t)
	}
	return tools
}

func (a *Adapter) searchPersons(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "search_persons", Provider: Name}

	pageSize := p.Int("page_size", a.pageSize)
	token := ""
	for page := 0; page < a.maxPages; page++ {
		q := url.Values{}
		q.Set("term", p.String("term", ""))
		q.Set("with_current_organizations", "true")
		q.Set("page_size", strconv.Itoa(pageSize))
		if token != "" {
			q.Set("page_token", token)
		}

		var body personsPage
		if err := a.client.GetJSON(ctx, "search_persons", "/persons", q, &body); err != nil {
			return nil, err
		}
		for _, per := range body.Persons {
			ents, rels := per.normalize()
			res.Entities = append(res.Entities, ents...)
			res.Relationships = append(res.Relationships, rels...)
		}

		token = body.NextPageToken
		if token == "" {
			return res, nil
		}
	}
	res.Truncated = token != ""
	return res, nil
}

func (a *Adapter) searchOrganizations(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "search_organizations", Provider: Name}

	pageSize := p.Int("page_size", a.pageSize)
	token := ""
	for page := 0; page < a.maxPages; page++ {
		q := url.Values{}
		q.Set("term", p.String("term", ""))
		q.Set("page_size", strconv.Itoa(pageSize))
		if token != "" {
			q.Set("page_token", token)
		}

		var body organizationsPage
		if err := a.client.GetJSON(ctx, "search_organizations", "/organizations", q, &body); err != nil {
			return nil, err
		}
		for _, org := range body.Organizations {
			ents, rels := org.normalize()
			res.Entities = append(res.Entities, ents...)
			res.Relationships = append(res.Relationships, rels...)
		}

		token = body.NextPageToken
		if token == "" {
			return res, nil
		}
	}
	res.Truncated = token != ""
	return res, nil
}

func (a *Adapter) getPerson(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_person", Provider: Name}

	q := url.Values{}
	q.Set("with_current_organizations", "true")

	var per person
	if err := a.client.GetJSON(ctx, "get_person", "/persons/"+p.ID("person_id"), q, &per); err != nil {
		return nil, err
	}
	res.Entities, res.Relationships = per.normalize()
	return res, nil
}

func (a *Adapter) getOrganization(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_organization", Provider: Name}

	var org organization
	if err := a.client.GetJSON(ctx, "get_organization", "/organizations/"+p.ID("organization_id"), nil, &org); err != nil {
		return nil, err
	}
	res.Entities, res.Relationships = org.normalize()
	return res, nil
}

func (a *Adapter) getRelationshipStrengths(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	res := &result.ToolResult{Tool: "get_relationship_strengths", Provider: Name}

	q := url.Values{}
	q.Set("external_id", p.ID("external_id"))
	if p.Has("internal_id") {
		q.Set("internal_id", p.ID("internal_id"))
	}

	var strengths []relationshipStrength
	if err := a.client.GetJSON(ctx, "get_relationship_strengths", "/relationship-strengths", q, &strengths); err != nil {
		return nil, err
	}
	for _, s := range strengths {
		if rel := s.normalize(); rel != nil {
			res.Relationships = append(res.Relationships, *rel)
		}
	}
	return res, nil
}

func (a *Adapter) getInteractions(ctx context.Context, params map[string]any) (*result.ToolResult, error) {
	p := provider.Params(params)
	if !p.Has("person_id") && !p.Has("organization_id") {
		return nil, toolerr.New(Name, "get_interactions", toolerr.ErrCodeInvalidParameters,
			"person_id or organization_id is required")
	}

	res := &result.ToolResult{Tool: "get_interactions", Provider: Name}

	pageSize := p.Int("page_size", a.pageSize)
	token := ""
	for page := 0; page < a.maxPages; page++ {
		q := url.Values{}
		if p.Has("person_id") {
			q.Set("person_id", p.ID("person_id"))
		}
		if p.Has("organization_id") {
			q.Set("organization_id", p.ID("organization_id"))
		}
		q.Set("page_size", strconv.Itoa(pageSize))
		if token != "" {
			q.Set("page_token", token)
		}

		var body interactionsPage
		if err := a.client.GetJSON(ctx, "get_interactions", "/interactions", q, &body); err != nil {
			return nil, err
		}
		for _, in := range body.Interactions {
			res.Relationships = append(res.Relationships, in.normalize()...)
		}

		token = body.NextPageToken
		if token == "" {
			return res, nil
		}
	}
	res.Truncated = token != ""
	return res, nil
}
