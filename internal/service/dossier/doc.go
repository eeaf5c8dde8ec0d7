// Package dossier builds the handover package a human receives when a lead
// conversation is escalated.
//
// Generation fetches the lead's data concurrently, then derives every field
// from that snapshot alone, so unchanged inputs always produce the same
// dossier. FormatDossierForHandover renders the dossier as the plain-text
// notification body.
package dossier
