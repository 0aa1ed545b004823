package paygate

import (
	"math/big"
	"sync"
)

// ResourceDescriptor describes a monetized resource as recorded in the
// catalog. Descriptors are read-only to the gateway and immutable for the
// lifetime of a request.
type ResourceDescriptor struct {
	// ID uniquely identifies the resource within the catalog.
	ID string

	// Name is a short human-readable name.
	Name string

	// Description describes what the resource does.
	Description string

	// Endpoint is the upstream URL the request is forwarded to on admission.
	Endpoint string

	// PayTo is the owner address that receives payments.
	PayTo string

	// Price is the cost per call in the settlement asset's smallest unit.
	Price *big.Int

	// Asset is the settlement token contract address.
	Asset string

	// AssetName is the token name used in EIP-712 signing domains.
	AssetName string

	// AssetVersion is the EIP-712 domain version of the token.
	AssetVersion string

	// Network is the network payments are accepted on.
	Network string

	// MimeType is the content type the resource produces.
	MimeType string
}

// Catalog resolves resource descriptors by id. The catalog itself is an
// external collaborator; the gateway only reads from it.
type Catalog interface {
	// Get returns the descriptor for id, or false if the id is unknown.
	Get(id string) (*ResourceDescriptor, bool)

	// List returns all registered descriptors.
	List() []*ResourceDescriptor
}

// StaticCatalog is an in-memory Catalog safe for concurrent use.
type StaticCatalog struct {
	mu        sync.RWMutex
	resources map[string]*ResourceDescriptor
	order     []string
}

// NewStaticCatalog creates a catalog pre-populated with the given resources.
func NewStaticCatalog(resources ...*ResourceDescriptor) *StaticCatalog {
	c := &StaticCatalog{resources: make(map[string]*ResourceDescriptor)}
	for _, r := range resources {
		c.Add(r)
	}
	return c
}

// Add registers or replaces a resource descriptor.
func (c *StaticCatalog) Add(r *ResourceDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.resources[r.ID]; !exists {
		c.order = append(c.order, r.ID)
	}
	c.resources[r.ID] = r
}

// Get returns the descriptor for id, or false if the id is unknown.
func (c *StaticCatalog) Get(id string) (*ResourceDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resources[id]
	return r, ok
}

// List returns all registered descriptors in insertion order.
func (c *StaticCatalog) List() []*ResourceDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ResourceDescriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.resources[id])
	}
	return out
}
