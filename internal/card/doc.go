// Package card builds the declarative UI descriptions the add-on returns to
// Gmail.
//
// A Card is a plain value: header, sections and widgets, with actions
// referring to server endpoints by function ID. The JSON encoding follows the
// Google Workspace add-on card schema, so a Card can be placed directly in an
// HTTP add-on response.
//
// Renderers are pure functions of their input; rendering the same view twice
// yields equal cards.
package card
