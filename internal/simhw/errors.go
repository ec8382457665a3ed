package simhw

import "github.com/inos-systems/corekernel/utils"

// ErrPoolExhausted is returned by PagePool.GetPage once capacity pages are
// checked out simultaneously.
var ErrPoolExhausted = utils.NewError("simhw: page pool exhausted")
