package entity

import "strconv"

// Cursor is a server-supplied continuation point. Collections paginated by
// opaque token set Token; offset-paginated collections set Offset.
type Cursor struct {
	Token  string
	Offset int
}

// String renders the cursor for logs and trace attributes.
func (c Cursor) String() string {
	if c.Token != "" {
		return c.Token
	}
	return "offset=" + strconv.Itoa(c.Offset)
}

// Page is one batch of entities returned by a single collection request.
// A nil Next marks the last page.
type Page struct {
	Entities []Entity
	Next     *Cursor
}

// Last reports whether no further page follows this one.
func (p *Page) Last() bool {
	return p.Next == nil
}
