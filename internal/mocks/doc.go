// Package mocks provides centralized mock implementations for testing.
//
// Store and collaborator interfaces are mocked with testify/mock
// (TestifyMock* types). Services with simple, mostly static behavior use
// function-field mocks (Mock* types) whose fields override fixed defaults:
//
//	tokens := mocks.NewMockTokenService(userID)
//	tokens.ValidationError = domain.ErrTokenExpired
//
// When adding a new mock to this package, name the file after the interface
// being mocked and assert that the mock satisfies it.
package mocks
