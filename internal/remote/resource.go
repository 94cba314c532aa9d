package remote

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/wire/protowire"
)

// object is a resource fetched from a Store service.
type object struct {
	id     string
	parent resource.Resource
	props  *resource.State
}

func (o *object) ID() string                  { return o.id }
func (o *object) Parent() resource.Resource   { return o.parent }
func (o *object) Properties() *resource.State { return o.props }

// collection lists its members with a ListMembers call on every
// enumeration.
type collection struct {
	*object
	client *Client
}

func (c *collection) Members(ctx context.Context) ([]resource.Resource, error) {
	uri, err := resource.PathAddresser{}.Address(c)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.call(ctx, listMethod, uri)
	if err != nil {
		return nil, err
	}
	list := resp.Get(listMembers).List()
	out := make([]resource.Resource, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		m, err := c.client.node(list.Get(i).Message(), c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// link is an address-only resource standing in for a reference target.
// Its parent chain reproduces the referenced address.
type link struct {
	id     string
	parent resource.Resource
}

func (l *link) ID() string                  { return l.id }
func (l *link) Parent() resource.Resource   { return l.parent }
func (l *link) Properties() *resource.State { return resource.NewState() }

// linkTo builds the link chain for a PathAddresser address. It returns nil
// for "" and "/".
func linkTo(uri string) resource.Resource {
	var cur resource.Resource
	for _, seg := range strings.Split(strings.Trim(uri, "/"), "/") {
		if seg == "" {
			continue
		}
		id, err := url.PathUnescape(seg)
		if err != nil {
			id = seg
		}
		cur = &link{id: id, parent: cur}
	}
	return cur
}

// Open fetches the resource at uri. Its ancestors are links, so its address
// and the addresses of everything below it match the remote side.
func (c *Client) Open(ctx context.Context, uri string) (resource.Resource, error) {
	uri = "/" + strings.Trim(uri, "/")
	resp, err := c.call(ctx, getMethod, uri)
	if err != nil {
		return nil, err
	}
	return c.node(resp, linkTo(path.Dir(uri)))
}

func (c *Client) node(m protoreflect.Message, parent resource.Resource) (resource.Resource, error) {
	doc, err := protowire.DocumentFromMessage(m.Get(memberDocument).Message())
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("remote: member without id below %q", idOf(parent))
	}
	props := resource.NewState()
	for _, p := range doc.Properties {
		props.Put(p.Name, value(p.Value))
	}
	obj := &object{id: doc.ID, parent: parent, props: props}
	if m.Get(memberCollected).Bool() {
		return &collection{object: obj, client: c}, nil
	}
	return obj, nil
}

// value turns wire references back into resources.
func value(v any) any {
	switch x := v.(type) {
	case resource.Ref:
		return linkTo(x.URI)
	case []resource.Ref:
		out := make([]resource.Resource, len(x))
		for i, r := range x {
			out[i] = linkTo(r.URI)
		}
		return out
	default:
		return v
	}
}

func idOf(r resource.Resource) string {
	if resource.IsNil(r) {
		return ""
	}
	return r.ID()
}
