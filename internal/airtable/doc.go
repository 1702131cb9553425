// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package airtable is a thin client for the Airtable REST API: list, find,
// get, create, update and delete records of the tables backing each resource,
// plus schema introspection. It performs no caching.
package airtable
