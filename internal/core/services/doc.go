// Package services implements the driving port interfaces.
//
// AnswerService runs one request through the pipeline: safety guard,
// mention resolution, intent routing, then either the structured analytics
// engine or hybrid retrieval, followed by grounding, synthesis and a metric
// record. DocumentService, GradeService and CanaryService serve the
// supporting commands.
//
// Services depend only on domain and the driven ports; adapters are
// injected by the bootstrap package.
package services
