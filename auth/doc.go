// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Host Keys

Host keys use HMAC-SHA256 to create deterministic, verifiable keys:

	hostKey := auth.GenerateHostKey(sessionID, salt)
	err := auth.ValidateHostKey(sessionID, hostKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same session ID and salt always produce the same key. This allows
validation without storing the key in the database.

# Voter Tokens

Voter tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateVoterToken()

Each voter gets a unique token when joining a session and sends it with
every vote.

# Session Codes

Session codes are short random strings people can read to each other:

	code, err := auth.GenerateSessionCode()  // e.g. "K7QX2M"

The alphabet leaves out 0, O, 1 and I. NormalizeCode accepts lower-case
and padded input.

# ID Generation

Random UUIDs for sessions and voters:

	id := auth.GenerateID()
*/
package auth
