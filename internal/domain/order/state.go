package order

// OrderState implements the state pattern for lifecycle transitions.
// Transitions are strictly monotonic: once confirmed or cancelled there is
// no path back to draft, and no transition ever touches product stock.
type OrderState interface {
	Status() Status
	OnAddLine(o *Order, line LineItem) (OrderState, error)
	OnConfirm(o *Order) (OrderState, error)
	OnCancel(o *Order) (OrderState, error)
}

func (o *Order) state() OrderState {
	switch o.Status {
	case StatusConfirmed:
		return confirmedState{}
	case StatusCancelled:
		return cancelledState{}
	default:
		return draftState{}
	}
}

type draftState struct{}

func (draftState) Status() Status { return StatusDraft }

func (draftState) OnAddLine(o *Order, line LineItem) (OrderState, error) {
	o.Lines = append(o.Lines, line)
	return draftState{}, nil
}

func (draftState) OnConfirm(*Order) (OrderState, error) {
	return confirmedState{}, nil
}

func (draftState) OnCancel(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

type confirmedState struct{}

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) OnAddLine(*Order, LineItem) (OrderState, error) {
	return nil, ErrInvalidState
}

func (confirmedState) OnConfirm(*Order) (OrderState, error) {
	return nil, ErrInvalidState
}

func (confirmedState) OnCancel(*Order) (OrderState, error) {
	return nil, ErrInvalidState
}

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) OnAddLine(*Order, LineItem) (OrderState, error) {
	return nil, ErrInvalidState
}

func (cancelledState) OnConfirm(*Order) (OrderState, error) {
	return nil, ErrInvalidState
}

func (cancelledState) OnCancel(*Order) (OrderState, error) {
	return nil, ErrInvalidState
}
