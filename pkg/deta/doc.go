// Package deta bootstraps a base client from environment variables, picking
// between the hosted HTTP backend and an in-memory mock. The selection is
// driven by DETA_SDK_MODE ("auto", "http", or "mock"): auto uses HTTP when a
// project key is configured and falls back to the mock otherwise, which keeps
// local development and CI runs working without credentials.
package deta
