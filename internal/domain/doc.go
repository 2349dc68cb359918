// Package domain contains the core business entities of the task tracker
// (users, tasks and their performer sets) together with the classified error
// kinds shared by every layer. It has no knowledge of storage or transport.
package domain
