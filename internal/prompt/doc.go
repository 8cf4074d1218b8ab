// Package prompt builds the clinical consultation prompt sent to the
// medical language model.
//
// # Overview
//
// [Build] substitutes a [record.PatientContext] and a free-text question
// into a fixed template. The template carries the structural contract that
// internal/parser depends on: a "DIAGNOSIS:" section followed by a
// "TREATMENT PLAN:" section, each on its own line, with an ICD-11 code
// inside the diagnosis and numbered steps inside the treatment plan.
//
// [Messages] wraps the same text in a system + user message pair for
// chat-style providers:
//
//	msgs := prompt.Messages(rec.PatientContext(), question)
//	resp, err := provider.Chat(ctx, msgs, chatOpts)
//	if err != nil {
//	    return err
//	}
//	result := parser.New().Parse(resp.Content)
//
// Building a prompt never fails. Empty fields are substituted as empty
// strings and control characters other than newline and tab are dropped
// from every substituted value.
package prompt
