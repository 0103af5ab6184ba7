package textlist

import (
	"fmt"
	"html/template"
	"io"
)

var listTemplate = template.Must(template.New("textlist").Parse(
	`<fieldset class="textlist" data-field="{{.Name}}">` +
		`<textarea class="hide" name="{{.Name}}">{{.Value}}</textarea>` +
		`<div class="list">` +
		`{{if .Placeholder}}<p>{{.Placeholder}}</p>{{end}}` +
		`{{range .Items}}<div class="item{{if .Selected}} selected{{end}}{{if .Zombie}} zombie{{end}}">` +
		`<textarea class="title">{{.Title}}</textarea>` +
		`<a href="#" class="remove" title="{{.TitleAttr}}">&times;</a>` +
		`</div>{{end}}` +
		`</div>` +
		`<button type="button" class="add">+</button>` +
		`</fieldset>`))

type renderItem struct {
	Title     string
	TitleAttr string
	Selected  bool
	Zombie    bool
}

type renderData struct {
	Name        string
	Value       string
	Placeholder string
	Items       []renderItem
}

// Render writes the widget markup
func (l *List) Render(w io.Writer) error {
	data := renderData{
		Name:        l.name,
		Value:       l.value,
		Placeholder: l.Placeholder(),
		Items:       make([]renderItem, 0, len(l.items)),
	}
	for i, item := range l.items {
		data.Items = append(data.Items, renderItem{
			Title:     item.Title,
			TitleAttr: item.TitleAttr,
			Selected:  l.selection.IsSelected(i),
			Zombie:    item.Zombie,
		})
	}

	if err := listTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render textlist %s: %w", l.name, err)
	}
	return nil
}
