// Package gdrive provides a Google Drive file provider backed by a
// service account. It lists and fetches documents from a single Drive
// folder and can upload new files into it.
package gdrive
