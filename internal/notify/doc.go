// Package notify emails a task's responsible user when the task's status
// changes.
//
// Trigger sits behind service.TaskNotifier. It compares the task before and
// after a mutation and, on a status change, enqueues a StatusChangedJob on the
// job runner. The job renders the email and hands it to a mail.Sender on a
// runner worker, so delivery never blocks or fails the request.
package notify
