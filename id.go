package zencourt

import "github.com/cladams7905/zencourt-sub006/id"

// ID is the identifier type for entities minted by this module.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
