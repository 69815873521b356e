package session

import (
	"folio/internal/types"
)

func (s *UnitTestSuite) TestSignal() {
	var sig Signal
	var got []types.Reason
	unsubscribe := sig.Subscribe(func(r types.Reason) { got = append(got, r) })

	sig.Emit(types.ReasonSessionExpired)
	s.Equal([]types.Reason{types.ReasonSessionExpired}, got)

	unsubscribe()
	sig.Emit(types.ReasonNoToken)
	s.Len(got, 1)
}

func (s *UnitTestSuite) TestSignalSubscriberMayUnsubscribeItself() {
	var sig Signal
	calls := 0
	var unsubscribe func()
	unsubscribe = sig.Subscribe(func(types.Reason) {
		calls++
		unsubscribe()
	})
	sig.Emit(types.ReasonUnauthorized)
	sig.Emit(types.ReasonUnauthorized)
	s.Equal(1, calls)
}
