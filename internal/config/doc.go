// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package config reads vcard.yaml and the environment. The YAML file is
// addressed with dotted keys; the environment carries the Airtable
// credentials and table overrides and wins over the file.
package config
