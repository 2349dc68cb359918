// Package mail renders and delivers task status-change emails.
//
// Bodies are written as Markdown and converted to HTML with goldmark. A
// Sender either writes each message to a directory as an HTML file (the
// development mode) or sends it over SMTP with implicit TLS.
package mail
