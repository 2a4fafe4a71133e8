// Package parser extracts structured payloads from oracle replies.
// Models asked for JSON frequently wrap it in markdown fences or
// surround it with prose; this package digs the payload out.
package parser
