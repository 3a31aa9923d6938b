package workflows

import (
	"errors"
	"time"

	"marketplace-checkout/activities"
	"marketplace-checkout/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	SignalSubmitShipping    = "submit-shipping"
	SignalSubmitPayment     = "submit-payment"
	SignalRetry             = "retry"
	SignalCompleteChallenge = "complete-challenge"
	SignalCancel            = "cancel"
	QueryState              = "state"
)

// CheckoutWorkflow drives one buyer checkout session: cart load, shipping
// submission, order intent creation, card confirmation, navigation. User
// actions arrive as signals; the UI reads the session through the state query.
// The workflow is the only owner of the payment attempt, so a client secret
// can never be confirmed twice concurrently.
func CheckoutWorkflow(ctx workflow.Context, input models.CheckoutInput) (models.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("CheckoutWorkflow started", "checkout_id", input.CheckoutID, "user_id", input.UserID)

	checkoutID := input.CheckoutID
	if checkoutID == "" {
		checkoutID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}

	r := &checkoutRun{
		input: input,
		snap: models.CheckoutSnapshot{
			CheckoutID:  checkoutID,
			State:       models.StateIdle,
			LastUpdated: workflow.Now(ctx),
		},
		shippingChan:  workflow.GetSignalChannel(ctx, SignalSubmitShipping),
		paymentChan:   workflow.GetSignalChannel(ctx, SignalSubmitPayment),
		retryChan:     workflow.GetSignalChannel(ctx, SignalRetry),
		challengeChan: workflow.GetSignalChannel(ctx, SignalCompleteChallenge),
		cancelChan:    workflow.GetSignalChannel(ctx, SignalCancel),
	}

	err := workflow.SetQueryHandler(ctx, QueryState, func() (models.CheckoutSnapshot, error) {
		return r.snap, nil
	})
	if err != nil {
		return r.result(), err
	}

	// Mutating collaborator calls are never retried automatically; every retry
	// is a user-initiated signal. The read-only status probe keeps a short
	// backoff because repeating it cannot change anything.
	r.callCtx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		HeartbeatTimeout:    10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	r.readCtx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		HeartbeatTimeout:    5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	// Step 1: load cart or single-product context. Load failures are
	// user-retryable from scratch.
	var cart []models.CartLine
	for {
		r.setState(ctx, models.StateLoadingCart)
		cartErr := workflow.ExecuteActivity(r.callCtx, r.act.GetCart, models.CartRequest{
			UserID:    input.UserID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
		}).Get(ctx, &cart)
		if cartErr == nil {
			break
		}
		logger.Error("Cart load failed", "checkout_id", checkoutID, "error", cartErr)
		r.fail(ctx, models.ErrKindCartLoad, errorMessage(cartErr))
		if !r.awaitRetry(ctx) {
			return r.result(), nil
		}
		r.setState(ctx, models.StateIdle)
	}

	// An empty cart is a valid terminal state, not a failure.
	if len(cart) == 0 {
		logger.Info("Cart is empty, nothing to check out", "checkout_id", checkoutID)
		r.setState(ctx, models.StateEmptyCart)
		return r.result(), nil
	}

	r.snap.Cart = cart
	for _, line := range cart {
		r.snap.TotalAmount += line.Subtotal()
	}

	var intent models.OrderIntent
	var confirmed models.PaymentStatusResult

Session:
	for {
		// Step 2: shipping submission, gated by synchronous validation.
		// No network call happens until the guard passes.
		r.setState(ctx, models.StateReadyForShipping)
		for {
			ev := r.next(ctx, evShipping)
			if ev.kind == evCancel {
				return r.abandon(ctx), nil
			}
			if msg := validateCheckout(ev.shipping, cart); msg != "" {
				logger.Info("Shipping validation failed", "checkout_id", checkoutID, "reason", msg)
				r.reject(ctx, msg)
				continue
			}
			r.shipping = ev.shipping
			r.clearError(ctx)

			// Cart editing is locked from here on so the displayed total
			// cannot drift from the charged amount.
			r.snap.CartLocked = true
			r.setState(ctx, models.StateSubmittingOrder)

			intentErr := workflow.ExecuteActivity(r.callCtx, r.act.CreateOrderWithPaymentIntent, models.OrderIntentRequest{
				CheckoutID:        checkoutID,
				UserID:            input.UserID,
				Lines:             cart,
				Shipping:          ev.shipping,
				PaymentMethodHint: "card",
			}).Get(ctx, &intent)
			r.drainStale()
			if intentErr != nil {
				logger.Error("Order intent creation failed", "checkout_id", checkoutID, "error", intentErr)
				r.fail(ctx, models.ErrKindPaymentSetup, errorMessage(intentErr))
				if !r.awaitRetry(ctx) {
					return r.result(), nil
				}
				// The failed attempt left no intent behind, so the cart
				// unlocks along with everything else.
				r.resetIntent(ctx)
				r.setState(ctx, models.StateReadyForShipping)
				continue
			}

			r.snap.OrderIDs = intent.OrderIDs
			r.snap.TotalAmount = intent.TotalAmount
			logger.Info("Order intent created", "checkout_id", checkoutID,
				"order_ids", intent.OrderIDs, "total_amount", intent.TotalAmount)
			break
		}

		// Step 3: payment confirmation loop. Declines retry in place with the
		// same secret; a canceled intent forces a restart from shipping.
		r.setState(ctx, models.StateAwaitingPaymentMethod)
		for {
			var outcome attemptOutcome
			switch r.snap.State {
			case models.StateAwaitingPaymentMethod:
				ev := r.next(ctx, evPayment)
				if ev.kind == evCancel {
					return r.abandon(ctx), nil
				}
				outcome = r.confirmAttempt(ctx, intent.ClientSecret, &ev.card, &confirmed)
			case models.StateRequiresAction:
				ev := r.next(ctx, evChallenge)
				if ev.kind == evCancel {
					return r.abandon(ctx), nil
				}
				outcome = r.confirmAttempt(ctx, intent.ClientSecret, nil, &confirmed)
			}

			switch outcome {
			case outcomeSucceeded:
				break Session
			case outcomeRequiresAction:
				// Waiting on the buyer's out-of-band challenge; not a failure.
			case outcomeNeedPaymentMethod:
				r.setState(ctx, models.StateAwaitingPaymentMethod)
			case outcomeRetryInPlace:
				if !r.awaitRetry(ctx) {
					return r.result(), nil
				}
				r.setState(ctx, models.StateAwaitingPaymentMethod)
			case outcomeRestartSession:
				if !r.awaitRetry(ctx) {
					return r.result(), nil
				}
				r.resetIntent(ctx)
				intent = models.OrderIntent{}
				continue Session
			}
		}
	}

	// Step 4: success. Resolve where to send the buyer and fire the
	// notification; neither can fail the session at this point.
	r.setState(ctx, models.StateSucceeded)
	target, navKind := ResolveNavigationTarget(intent.OrderIDs, confirmed.Metadata)
	r.snap.NavigationTarget = target
	if navKind == models.ErrKindNavigationFallback {
		r.snap.ErrorKind = models.ErrKindNavigationFallback
		r.snap.ErrorMessage = "order reference unresolved, falling back to order list"
		logger.Warn("Order id unresolved after confirmation", "checkout_id", checkoutID)
	}

	notifyErr := workflow.ExecuteActivity(r.callCtx, r.act.NotifyCustomer, models.NotificationRequest{
		CheckoutID: checkoutID,
		UserID:     input.UserID,
		Email:      r.shipping.Email,
		OrderIDs:   intent.OrderIDs,
		Message:    "Your payment was received and your order is confirmed",
	}).Get(ctx, nil)
	if notifyErr != nil {
		logger.Warn("Failed to notify customer", "checkout_id", checkoutID, "error", notifyErr)
	}

	logger.Info("CheckoutWorkflow completed", "checkout_id", checkoutID, "navigation_target", target)
	return r.result(), nil
}

type eventKind int

const (
	evShipping eventKind = iota
	evPayment
	evRetry
	evChallenge
	evCancel
)

type event struct {
	kind     eventKind
	shipping models.ShippingInfo
	card     models.CardInput
}

type attemptOutcome int

const (
	outcomeSucceeded attemptOutcome = iota
	outcomeRequiresAction
	outcomeNeedPaymentMethod
	outcomeRetryInPlace
	outcomeRestartSession
)

type checkoutRun struct {
	input    models.CheckoutInput
	snap     models.CheckoutSnapshot
	shipping models.ShippingInfo

	callCtx workflow.Context
	readCtx workflow.Context

	// nil receivers, used only to reference registered activity methods
	act    *activities.Activities
	payAct *activities.PaymentActivities

	shippingChan  workflow.ReceiveChannel
	paymentChan   workflow.ReceiveChannel
	retryChan     workflow.ReceiveChannel
	challengeChan workflow.ReceiveChannel
	cancelChan    workflow.ReceiveChannel
}

// confirmAttempt runs one confirmation attempt against the gateway. It always
// re-checks the remote intent status first, so a duplicate submit or a reload
// after a completed payment short-circuits instead of re-confirming. A nil
// card means the buyer returned from an external challenge and no new payment
// method may be created.
func (r *checkoutRun) confirmAttempt(ctx workflow.Context, clientSecret string, card *models.CardInput, out *models.PaymentStatusResult) attemptOutcome {
	logger := workflow.GetLogger(ctx)

	r.clearError(ctx)
	r.setState(ctx, models.StateConfirmingPayment)
	r.snap.PaymentAttempts++
	defer r.drainStale()

	var status models.PaymentStatusResult
	err := workflow.ExecuteActivity(r.readCtx, r.payAct.RetrievePaymentIntentStatus, clientSecret).Get(ctx, &status)
	if err != nil {
		logger.Error("Intent status retrieval failed", "error", err)
		r.fail(ctx, models.ErrKindPaymentConfirm, errorMessage(err))
		return outcomeRetryInPlace
	}

	switch status.Status {
	case models.IntentStatusSucceeded:
		*out = status
		return outcomeSucceeded
	case models.IntentStatusCanceled:
		r.fail(ctx, models.ErrKindPaymentCanceled, "payment intent was canceled")
		return outcomeRestartSession
	case models.IntentStatusRequiresAction:
		r.setState(ctx, models.StateRequiresAction)
		return outcomeRequiresAction
	}

	if card == nil {
		// Challenge completed but the intent fell back to needing a payment
		// method; the buyer submits card details again.
		logger.Info("Intent needs a payment method after challenge", "status", status.Status)
		return outcomeNeedPaymentMethod
	}

	var pm models.PaymentMethodResult
	err = workflow.ExecuteActivity(r.callCtx, r.payAct.CreatePaymentMethod, models.PaymentMethodRequest{
		Card:    *card,
		Billing: r.shipping,
	}).Get(ctx, &pm)
	if err != nil {
		logger.Error("Payment method creation failed", "error", err)
		r.fail(ctx, models.ErrKindPaymentConfirm, errorMessage(err))
		return outcomeRetryInPlace
	}
	if pm.Declined {
		r.fail(ctx, models.ErrKindPaymentDeclined, pm.Message)
		return outcomeRetryInPlace
	}

	var result models.PaymentStatusResult
	err = workflow.ExecuteActivity(r.callCtx, r.payAct.ConfirmPayment, models.ConfirmRequest{
		ClientSecret:    clientSecret,
		PaymentMethodID: pm.PaymentMethodID,
	}).Get(ctx, &result)
	if err != nil {
		logger.Error("Payment confirmation failed", "error", err)
		r.fail(ctx, models.ErrKindPaymentConfirm, errorMessage(err))
		return outcomeRetryInPlace
	}

	switch {
	case result.Status == models.IntentStatusSucceeded:
		*out = result
		return outcomeSucceeded
	case result.Status == models.IntentStatusRequiresAction:
		r.setState(ctx, models.StateRequiresAction)
		return outcomeRequiresAction
	case result.Declined:
		r.fail(ctx, models.ErrKindPaymentDeclined, result.Message)
		return outcomeRetryInPlace
	case result.Status == models.IntentStatusCanceled:
		r.fail(ctx, models.ErrKindPaymentCanceled, "payment intent was canceled")
		return outcomeRestartSession
	default:
		r.fail(ctx, models.ErrKindPaymentConfirm, "unexpected payment status: "+result.Status)
		return outcomeRetryInPlace
	}
}

// next blocks until one of the accepted signals (or cancel) arrives. Signals
// that do not apply to the current state are received and dropped.
func (r *checkoutRun) next(ctx workflow.Context, accept ...eventKind) event {
	logger := workflow.GetLogger(ctx)
	for {
		ev := r.receiveAny(ctx)
		if ev.kind == evCancel {
			return ev
		}
		for _, k := range accept {
			if ev.kind == k {
				return ev
			}
		}
		logger.Info("Ignoring signal in current state", "state", r.snap.State)
	}
}

func (r *checkoutRun) receiveAny(ctx workflow.Context) event {
	var ev event
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(r.shippingChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &ev.shipping)
		ev.kind = evShipping
	})
	selector.AddReceive(r.paymentChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &ev.card)
		ev.kind = evPayment
	})
	selector.AddReceive(r.retryChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, nil)
		ev.kind = evRetry
	})
	selector.AddReceive(r.challengeChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, nil)
		ev.kind = evChallenge
	})
	selector.AddReceive(r.cancelChan, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, nil)
		ev.kind = evCancel
	})
	selector.Select(ctx)
	return ev
}

// drainStale discards signals that queued up while a collaborator call was in
// flight, which makes a double-click or duplicate submit a no-op. The cancel
// channel is never drained.
func (r *checkoutRun) drainStale() {
	for r.shippingChan.ReceiveAsync(nil) {
	}
	for r.paymentChan.ReceiveAsync(nil) {
	}
	for r.retryChan.ReceiveAsync(nil) {
	}
	for r.challengeChan.ReceiveAsync(nil) {
	}
}

// awaitRetry parks the session in FAILED until the buyer retries. Returns
// false if the session was abandoned instead. A retry leaves FAILED, so the
// stale error must not outlive it.
func (r *checkoutRun) awaitRetry(ctx workflow.Context) bool {
	ev := r.next(ctx, evRetry)
	if ev.kind != evRetry {
		return false
	}
	r.clearError(ctx)
	return true
}

func (r *checkoutRun) setState(ctx workflow.Context, s models.CheckoutState) {
	r.snap.State = s
	r.snap.LastUpdated = workflow.Now(ctx)
}

func (r *checkoutRun) fail(ctx workflow.Context, kind models.ErrorKind, message string) {
	r.snap.State = models.StateFailed
	r.snap.ErrorKind = kind
	r.snap.ErrorMessage = message
	r.snap.LastUpdated = workflow.Now(ctx)
}

// reject records a validation error without leaving the current state.
func (r *checkoutRun) reject(ctx workflow.Context, message string) {
	r.snap.ErrorKind = models.ErrKindValidation
	r.snap.ErrorMessage = message
	r.snap.LastUpdated = workflow.Now(ctx)
}

func (r *checkoutRun) clearError(ctx workflow.Context) {
	r.snap.ErrorKind = models.ErrKindNone
	r.snap.ErrorMessage = ""
	r.snap.LastUpdated = workflow.Now(ctx)
}

// resetIntent discards a dead payment intent so the session can restart from
// the shipping step with a fresh one.
func (r *checkoutRun) resetIntent(ctx workflow.Context) {
	r.snap.OrderIDs = nil
	r.snap.CartLocked = false
	r.snap.PaymentAttempts = 0
	r.clearError(ctx)
}

func (r *checkoutRun) abandon(ctx workflow.Context) models.CheckoutResult {
	logger := workflow.GetLogger(ctx)
	logger.Info("Checkout session abandoned", "checkout_id", r.snap.CheckoutID, "state", r.snap.State)
	return r.result()
}

func (r *checkoutRun) result() models.CheckoutResult {
	return models.CheckoutResult{
		CheckoutID:       r.snap.CheckoutID,
		State:            r.snap.State,
		ErrorKind:        r.snap.ErrorKind,
		ErrorMessage:     r.snap.ErrorMessage,
		OrderIDs:         r.snap.OrderIDs,
		NavigationTarget: r.snap.NavigationTarget,
	}
}

// errorMessage surfaces the collaborator-provided message when present so the
// buyer sees the gateway or backend wording rather than SDK wrapping.
func errorMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
