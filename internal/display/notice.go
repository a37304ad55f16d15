package display

import (
	box "github.com/Delta456/box-cli-maker/v2"
)

// Notice frames a short message, used for update and check results.
func (c *Console) Notice(title, body string) string {
	if !c.Color {
		return title + "\n" + body + "\n"
	}
	b := box.New(box.Config{Px: 2, Py: 1, Type: "Round", Color: "Cyan", TitlePos: "Top", ContentAlign: "Left"})
	return b.String(title, body)
}
