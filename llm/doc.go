// Package llm defines the surface of the completion oracle used for plan
// generation and answer synthesis.
//
// The oracle is treated as a black-box, possibly-slow, possibly-failing
// remote text-completion service. The package defines the request/response
// shapes and the Completer interface; concrete bindings to a model service
// live with the embedding application and are injected at construction
// time.
package llm
