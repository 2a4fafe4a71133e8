// Package netagent answers natural-language questions about a venture
// relationship network by orchestrating tool calls against CRM and
// enrichment data providers.
//
// A question flows through four stages: an oracle (any LLM behind the
// llm.Completer interface) plans a DAG of provider tool calls, a retry
// executor runs the plan under rate limits and budgets, the results are
// merged into a cross-provider entity graph, and the oracle synthesizes
// a grounded answer from that graph.
//
// # Getting Started
//
// Create a client from an agent.yaml configuration and an oracle:
//
//	client, err := netagent.NewClient(oracle,
//		netagent.WithConfig("/etc/netagent/agent.yaml"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	answer, err := client.Ask(ctx, "Who at Springbank knows the founders of Acme?")
//
// The answer carries the synthesized text, a completeness grade, the
// resolved evidence snapshot, and the list of lookups that were
// attempted, failed, or skipped.
//
// # Providers
//
// Two providers ship with the module: provider/affinity (CRM data:
// people, organizations, relationship strengths, interactions) and
// provider/harmonic (enrichment data: company search, funding, investor
// portfolios, people networks). Additional providers implement the
// provider.Adapter interface.
//
// # Budgets and Limits
//
// Each session is bounded by a wall-clock deadline, a tool-call ceiling,
// and a per-provider concurrency cap. Provider call rates are enforced
// by the ratelimit package, either in-process or shared across replicas
// through Redis.
package netagent
