// Package authz makes the access decisions for task operations.
//
// There are three trust tiers. Creating and deleting tasks is reserved for
// project managers. Editing a task is allowed to its responsible user and to
// project managers. Changing a task's status is also allowed to the task's
// performers, which requires the performer set to be loaded.
package authz
