// Package apierrors defines the domain error taxonomy and the translation
// of arbitrary errors into wire-level status codes and stable numeric
// error codes.
//
// # Overview
//
// Errors raised by request handling fall into a closed set of families
// (authentication, authorization, bad request, not found, throttled,
// unavailable, retriable). Translation walks an ordered classification
// table, most specific family first, matching each error against the
// family types with errors.As so that wrapped causes classify the same
// as their roots.
//
// Unrecognized errors map to 500 with the generic code. In non-debug
// mode their message is replaced with the status reason phrase so that
// internal detail never reaches the wire; debug mode surfaces the
// original message.
//
// Engineers adding a new error family must add a table row in
// classificationRules rather than relying on the fallback.
package apierrors
