package ports

// Renderer is the output surface query results are written to. It is never
// read back.
type Renderer interface {
	Clear()
	AppendLine(line string)
	// Show reveals the surface; preserveFocus keeps the cursor in the editor.
	Show(preserveFocus bool)
}

// DocumentSource provides the query text to run.
type DocumentSource interface {
	// IsQueryDocument reports whether the document is a recognized query document.
	IsQueryDocument() bool
	Text() (string, error)
}
