// Package api provides the client for the text-classification backend.
// It wraps every call in a per-attempt timeout and a bounded exponential
// backoff retry loop, reports every failure as a *common.APIError, and maps
// the backend's JSON envelope onto the domain types in package model.
package api
