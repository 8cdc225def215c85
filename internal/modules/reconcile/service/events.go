package service

import (
	countdown "timeblocks/internal/modules/countdown/domain"
	identity "timeblocks/internal/modules/identity/domain"
	"timeblocks/internal/modules/reconcile/domain"
)

type event any

type identityChanged struct{ event identity.Event }

type bootstrapExpired struct{ gen uint64 }

type debounceFired struct{ gen uint64 }

type savingExpired struct{ gen uint64 }

type remoteSnapshot struct {
	gen      uint64
	snapshot domain.RemoteSnapshot
}

type remoteFailed struct {
	gen uint64
	err error
}

type writeDone struct{ err error }

type editRequest struct {
	patch countdown.Patch
	reply chan domain.SessionState
}

type reloadRequest struct{}

type dismissRequest struct{}

type stateQuery struct{ reply chan domain.SessionState }

type idleQuery struct{ reply chan struct{} }

type watchRequest struct {
	ch    chan domain.SessionState
	reply chan int
}

type unwatchRequest struct{ id int }
