// Package gpath evaluates GPath-style expressions against JSON and XML
// documents decoded into plain Go values.
//
// Supported syntax:
//
//	store.book[0].title          field access and indexing
//	[-1].id                      negative index from the end
//	items.*                      wildcard over list elements or object values
//	items.name                   projection: field access maps over a list
//	items.findAll{it.n > 1}      filter a list with a predicate
//	items.find{it.id == 7}.name  first match
//	name.length().sum()          per-element length, then aggregate
//
// Predicates support ==, !=, <, <=, >, >=, =~ (regex), &&, ||, !, parentheses,
// literals and the functions contains, startsWith and endsWith.
package gpath
