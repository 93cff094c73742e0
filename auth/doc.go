// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, tokens, and credential helpers.

# Identifiers

Database records use random UUIDs:

	id := auth.NewID()

# Voting Session Tokens

Session tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateSessionToken()

Tokens are URL-safe base64 encoded and address one voter's in-progress
selection on the server.

# Voter Emails

Registered voters and dimension votes are keyed by the normalized address:

	email, err := auth.NormalizeEmail(" Maria@Coop.com ")  // "maria@coop.com"

# Administrators

Admin passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(password, hash)

Logins receive an HS256 JWT carrying the admin ID and email:

	token, expiresAt, err := auth.SignAdminToken(adminID, email, secret, 12*time.Hour)
	claims, err := auth.ParseAdminToken(token, secret)

# IP Hashing

Votes record a salted hash of the submitting address:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
