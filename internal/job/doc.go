// Package job models a single conversion: the immutable request, the mutable
// run state handed from stage to stage, the on-disk workspace, progress
// accounting and the final result.
//
// Progress is reported in fixed percentage bands per stage and never moves
// backwards, even when parallel transcodes report out of order.
package job
