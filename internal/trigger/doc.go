// Package trigger adapts the export engine to the CRM's automation engine.
//
// Actions run against groups of contacts. Two failure semantics matter at
// this boundary: a broken action configuration fails the whole group
// permanently (ErrMissingConfig), while a schema that was deleted after the
// action was configured lets the group pass with an error so the automation
// engine does not loop on it forever (ErrSchemaGone).
package trigger
