package levels

import "github.com/xraph/levels/id"

// ID is the primary identifier type for flush batches and level changes.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
