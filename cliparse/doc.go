// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Sources

Values are resolved in this order, first match wins:

 1. CLI flags
 2. Environment variables (a .env file in the working directory is loaded
    first and never overrides variables that are already set)
 3. The YAML config file named by -c or FIC_CONFIG
 4. Defaults

# CLI Flags

	-p            Server port (default 8080)
	-d            Database URL
	-t            Database type: postgres or sqlite (inferred from the URL)
	-c            YAML config file
	--log-level   debug, info, warn, error
	--jwt-secret  Admin token signing secret
	--ip-salt     Salt for voter IP hashes (defaults to the JWT secret)

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, FIC_CONFIG, LOG_LEVEL,
	JWT_SECRET, IP_HASH_SALT, AI_ENDPOINT, AI_MODEL, AI_API_KEY

# Config File

	dimensions:
	  - key: governanca
	    label: Governança
	  - key: clima
	    label: Clima organizacional
	ai:
	  endpoint: https://api.openai.com/v1
	  model: gpt-4o-mini
	  temperature: 0.3
	  timeout: 2m
	  max_attempts: 2
	session_idle_timeout: 2h
	admin_token_ttl: 12h

An empty dimension catalogue accepts any dimension key except "all".

# Validation

ParseFlags returns an error if DATABASE_URL or JWT_SECRET is missing, the
database type is unknown, or the file holds duplicate or reserved
dimension keys.
*/
package cliparse
