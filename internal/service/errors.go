package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidFleetID is returned when fleet ID is empty.
	ErrInvalidFleetID = errors.New("invalid fleet id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidPayoutID is returned when payout ID is empty.
	ErrInvalidPayoutID = errors.New("invalid payout id")

	// ErrInvalidAmount is returned when a price or payout amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCancelReason is returned when a cancellation carries no reason.
	ErrInvalidCancelReason = errors.New("cancel reason is required")

	// ErrDriverNotVerified is returned when an unverified driver tries to claim a trip.
	ErrDriverNotVerified = errors.New("driver is not verified")

	// ErrTripAlreadyClaimed is returned when another driver claimed the trip first.
	ErrTripAlreadyClaimed = errors.New("trip already claimed by another driver")

	// ErrTripNotPublished is returned when claiming a trip that is not open for claims.
	ErrTripNotPublished = errors.New("trip is not published")

	// ErrTripNotClaimed is returned when starting a trip that is not in CLAIMED state.
	ErrTripNotClaimed = errors.New("trip is not claimed")

	// ErrTripNotInProgress is returned when completing a trip that is not underway.
	ErrTripNotInProgress = errors.New("trip is not in progress")

	// ErrTripNotCancelable is returned when canceling a trip in a terminal state.
	ErrTripNotCancelable = errors.New("trip cannot be canceled in current state")

	// ErrTripNotRefundable is returned when refunding a trip that is not COMPLETED
	// or CANCELED with a paid payment.
	ErrTripNotRefundable = errors.New("trip is not refundable")

	// ErrTripNotCompleted is returned when retrying settlement for a trip that
	// has not completed.
	ErrTripNotCompleted = errors.New("trip is not completed")

	// ErrNotTripDriver is returned when a driver other than the assigned one
	// tries to start or complete a trip.
	ErrNotTripDriver = errors.New("caller is not the assigned driver")

	// ErrTripNotDraft is returned when initiating payment for a non-draft trip.
	ErrTripNotDraft = errors.New("trip is not in draft")

	// ErrTripNotAwaitingPayment is returned when confirming payment for a trip
	// that is not pending payment.
	ErrTripNotAwaitingPayment = errors.New("trip is not awaiting payment")

	// ErrPaymentNotPaid is returned when refunding a payment that was never paid.
	ErrPaymentNotPaid = errors.New("payment is not paid")

	// ErrPayoutAlreadyPaid is returned when disbursing an already-processed payout.
	ErrPayoutAlreadyPaid = errors.New("payout already processed")

	// ErrPayoutInProgress is returned when another disbursement for the same
	// payout is in flight.
	ErrPayoutInProgress = errors.New("payout disbursement already in progress")

	// ErrNoConnectedAccount is returned when the payout beneficiary has no
	// connected payment account.
	ErrNoConnectedAccount = errors.New("beneficiary has no connected account")

	// ErrGateway wraps failures and timeouts from the payment gateway.
	ErrGateway = errors.New("payment gateway error")
)
