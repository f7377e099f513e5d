package reduction

// Option configures a Reducer at construction time.
type Option func(*config)

type config struct {
	broadcast      bool
	reservedFanout int
}

// WithBroadcast makes Reduce broadcast the root's result to every rank,
// mirroring original_source's ReduceType::REDUCE_BCAST construction
// option (as opposed to REDUCE, the default, where only the root's
// return value is meaningful). ReduceType::ALLREDUCE has no equivalent
// here: spec.md §9 marks it unsupported on this binary-tree topology.
func WithBroadcast(enabled bool) Option {
	return func(c *config) { c.broadcast = enabled }
}

// WithReservedFanout stores the reserved fan-out/caching parameter k
// named in spec.md §9's Open Questions. It is plumbed through and
// retrievable but never consulted by the binary-tree reduction path.
func WithReservedFanout(k int) Option {
	return func(c *config) { c.reservedFanout = k }
}
