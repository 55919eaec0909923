package binder

import (
	"sort"

	"github.com/kbinder/go-binder/internal/parcel"
)

// InterfaceRange associates an interface descriptor with the highest
// transaction code it answers. A RemoteObject implementing several
// interfaces (HIDL's interface inheritance chain) answers each one over
// a contiguous range of transaction codes.
type InterfaceRange struct {
	Iface    string
	LastCode uint32
}

type clientRange struct {
	iface    string
	lastCode uint32
	header   []byte
}

// Client binds a RemoteObject to one or more interface descriptors and
// code ranges, pre-rendering each range's RPC header so bare no-arg
// transactions avoid rebuilding a parcel from scratch.
type Client struct {
	remote *RemoteObject
	ipc    *Ipc
	ranges []clientRange
}

// NewClient constructs a Client over remote, sorting ranges by LastCode
// ascending and pre-rendering the RPC header for each.
func NewClient(ipc *Ipc, remote *RemoteObject, ranges []InterfaceRange) *Client {
	sorted := append([]InterfaceRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LastCode < sorted[j].LastCode })

	c := &Client{remote: remote, ipc: ipc}
	for _, rg := range sorted {
		w := parcel.NewWriter(ipc.IO())
		ipc.protocol.WriteHeader(w, rg.Iface)
		payload, _, _ := w.Finish()
		c.ranges = append(c.ranges, clientRange{iface: rg.Iface, lastCode: rg.LastCode, header: payload})
	}
	return c
}

// Remote returns the RemoteObject this Client issues calls against.
func (c *Client) Remote() *RemoteObject { return c.remote }

// findRange returns the range governing code. Ranges are typically one,
// occasionally a handful for a multi-interface HIDL object, so a linear
// scan beats the bookkeeping a binary search would need.
func (c *Client) findRange(code uint32) *clientRange {
	for i := range c.ranges {
		if code <= c.ranges[i].lastCode {
			return &c.ranges[i]
		}
	}
	return nil
}

// NewRequest clones the pre-rendered RPC header for code's interface
// range into a fresh, appendable RemoteRequest.
func (c *Client) NewRequest(code uint32) (*RemoteRequest, error) {
	rg := c.findRange(code)
	if rg == nil {
		return nil, NewError("NEW_REQUEST", ErrCodeInvalid, "no interface range covers transaction code")
	}
	w := parcel.NewWriter(c.ipc.IO())
	w.Bytes(append([]byte(nil), rg.header...))
	return &RemoteRequest{w: w}, nil
}

// Call builds a fresh request for code, lets build append arguments
// beyond the header, and issues a blocking sync transaction.
func (c *Client) Call(code uint32, build func(*RemoteRequest)) (*RemoteReply, error) {
	req, err := c.NewRequest(code)
	if err != nil {
		return nil, err
	}
	if build != nil {
		build(req)
	}
	return c.remote.Transact(code, req)
}

// CallOneway is Call's fire-and-forget counterpart.
func (c *Client) CallOneway(code uint32, build func(*RemoteRequest)) error {
	req, err := c.NewRequest(code)
	if err != nil {
		return err
	}
	if build != nil {
		build(req)
	}
	return c.remote.TransactOneway(code, req)
}
