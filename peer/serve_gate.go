package peer

// serveChainAllowed reports whether this session may answer a
// chain-reading serve request (getheaders/getblocks): the local chain
// must be fully synced and able to answer in full, which excludes a
// selfish configuration, an SPV (headers-only) node, and a pruned
// store (spec.md §4.7).
func (s *Session) serveChainAllowed() bool {
	if s.cfg.Selfish || s.cfg.SPV {
		return false
	}
	return s.chain.Synced() && !s.chain.Pruned()
}
