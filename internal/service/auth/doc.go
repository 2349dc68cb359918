// Package auth holds the credential primitives: bcrypt password hashing and
// HMAC-signed session tokens whose subject is a user id.
package auth
