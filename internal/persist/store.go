package persist

// Store bundles the repositories over one DB handle.
type Store struct {
	Maps    *MapRepo
	Portals *PortalStateRepo
	Lights  *LightSourceRepo
	Areas   *RevealedAreaRepo
	Tokens  *TokenRepo
}

func NewStore(db *DB) *Store {
	return &Store{
		Maps:    NewMapRepo(db),
		Portals: NewPortalStateRepo(db),
		Lights:  NewLightSourceRepo(db),
		Areas:   NewRevealedAreaRepo(db),
		Tokens:  NewTokenRepo(db),
	}
}
