// Package services implements the driving port interfaces.
//
// The client side (SearchCoordinator, AnalysisTrigger, ChatSession and the
// stream decoder) turns search results into a streamed analysis. The server
// side (DatasetService, SynthesisService) answers those searches and
// produces the analysis from an LLM.
//
// Services are pure Go with no CGO or external dependencies.
package services
