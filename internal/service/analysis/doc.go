// Package analysis scores lead conversations with keyword heuristics.
//
// The heuristics sit behind ConversationAnalyzer so the handover evaluator
// and dossier generator do not depend on how scoring works.
package analysis
