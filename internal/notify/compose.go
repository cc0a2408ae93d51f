package notify

import (
	"net/url"
	"strings"

	"github.com/abelbrown/universal/internal/project"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/source"
)

// ProjectedComposer builds notifications from the record's Presentation:
// the heading becomes the title, the first sub-heading the description, and
// the url points at LinkBase/{dataSource}/{id}.
type ProjectedComposer struct {
	Projector  *project.Projector
	FieldMap   record.FieldMap
	DataSource string
	LinkBase   string
}

// Compose implements Composer.
func (c ProjectedComposer) Compose(rec record.Record, target source.Target) source.Notification {
	p := c.Projector.Project(rec, c.FieldMap)

	n := source.Notification{
		Title:   p.Heading,
		AppName: target.AppName,
	}
	if len(p.SubHeadings) > 0 {
		n.Description = p.SubHeadings[0]
	}
	if id := record.Format(p.ID); id != "" && c.LinkBase != "" {
		n.URL = strings.TrimRight(c.LinkBase, "/") + "/" + url.PathEscape(c.DataSource) + "/" + url.PathEscape(id)
	}
	return n
}
