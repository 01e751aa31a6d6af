// SPDX-License-Identifier: MIT

package push

import (
	"context"
	"fmt"
	"testing"

	fcm "firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errNotRegistered    = errors.New("requested entity was not found")
	errBackendDown      = errors.New("backend unavailable")
	errSomethingCryptic = errors.New("mismatched sender")
)

type fakeMessenger struct {
	response *fcm.BatchResponse
	err      error
	calls    []*fcm.MulticastMessage
}

func (f *fakeMessenger) SendEachForMulticast(_ context.Context, message *fcm.MulticastMessage) (*fcm.BatchResponse, error) {
	f.calls = append(f.calls, message)
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	responses := make([]*fcm.SendResponse, 0, len(message.Tokens))
	for idx := range message.Tokens {
		responses = append(responses, &fcm.SendResponse{Success: true, MessageID: fmt.Sprintf("m%v", idx)})
	}

	return &fcm.BatchResponse{SuccessCount: len(responses), Responses: responses}, nil
}

type fakeTokenStore struct {
	tokens      map[string][]string
	removeErrs  map[string]error
	removeCalls []string
	readErr     error
}

func (f *fakeTokenStore) DeviceTokens(_ context.Context, userID string) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}

	return f.tokens[userID], nil
}

func (*fakeTokenStore) AddDeviceToken(context.Context, string, string) error { return nil }

func (f *fakeTokenStore) RemoveDeviceToken(_ context.Context, userID, deviceToken string) error {
	if err := f.removeErrs[deviceToken]; err != nil {
		return err
	}
	f.removeCalls = append(f.removeCalls, userID+"/"+deviceToken)

	return nil
}

func (*fakeTokenStore) Ping(context.Context) error { return nil }

func (*fakeTokenStore) Close() error { return nil }

func newPushFixture(messenger *fakeMessenger, tokenStore *fakeTokenStore) *push {
	return &push{applicationYAMLKey: "notifications/push", client: messenger, tokenStore: tokenStore}
}

// swapClassificationSeams makes the vendor predicates recognize this test's
// sentinel errors; the real predicates need the vendor's private error types.
func swapClassificationSeams(t *testing.T) {
	t.Helper()
	prevPermanent, prevTransient := isPermanentInvalidFailure, isTransientFailure
	isPermanentInvalidFailure = func(err error) bool { return errors.Is(err, errNotRegistered) }
	isTransientFailure = func(err error) bool { return errors.Is(err, errBackendDown) }
	t.Cleanup(func() {
		isPermanentInvalidFailure, isTransientFailure = prevPermanent, prevTransient
	})
}

func TestSendToDeviceTokensEmptyBatchSkipsTransport(t *testing.T) {
	t.Parallel()
	messenger := new(fakeMessenger)
	result := newPushFixture(messenger, new(fakeTokenStore)).SendToDeviceTokens(t.Context(), nil, &Notification{Title: "hi"})

	require.NoError(t, result.Err)
	assert.Zero(t, result.SuccessCount)
	assert.Zero(t, result.FailureCount)
	assert.Empty(t, result.FailedTokens)
	assert.Empty(t, messenger.calls)
}

func TestSendToDeviceTokensTruncatesOversizedBatch(t *testing.T) {
	t.Parallel()
	messenger := new(fakeMessenger)
	deviceTokens := make([]DeviceToken, 0, 600)
	for idx := range 600 {
		deviceTokens = append(deviceTokens, DeviceToken(fmt.Sprintf("t%04d", idx)))
	}
	result := newPushFixture(messenger, new(fakeTokenStore)).SendToDeviceTokens(t.Context(), deviceTokens, &Notification{Title: "hi"})

	require.NoError(t, result.Err)
	assert.Equal(t, maxBatchSize, result.SuccessCount+result.FailureCount)
	require.Len(t, messenger.calls, 1)
	require.Len(t, messenger.calls[0].Tokens, maxBatchSize)
	assert.Equal(t, "t0000", messenger.calls[0].Tokens[0])
	assert.Equal(t, "t0499", messenger.calls[0].Tokens[maxBatchSize-1])
}

func TestSendToUserMixedOutcomesCleansUpOnlyPermanentlyInvalidTokens(t *testing.T) { //nolint:paralleltest // Swaps classification seams.
	swapClassificationSeams(t)
	messenger := &fakeMessenger{response: &fcm.BatchResponse{
		SuccessCount: 1,
		FailureCount: 2,
		Responses: []*fcm.SendResponse{
			{Success: true, MessageID: "m0"},
			{Success: false, Error: errNotRegistered},
			{Success: false, Error: errSomethingCryptic},
		},
	}}
	tokenStore := &fakeTokenStore{tokens: map[string][]string{"u1": {"a", "b", "c"}}}
	result := newPushFixture(messenger, tokenStore).SendToUser(t.Context(), "u1", &Notification{Title: "hi"})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, []DeviceToken{"b", "c"}, result.FailedTokens)
	assert.Equal(t, []string{"u1/b"}, tokenStore.removeCalls, "only the unregistered token may be removed")
}

func TestSendToUserWithoutAutoCleanupKeepsInvalidTokens(t *testing.T) { //nolint:paralleltest // Swaps classification seams.
	swapClassificationSeams(t)
	messenger := &fakeMessenger{response: &fcm.BatchResponse{
		FailureCount: 1,
		Responses:    []*fcm.SendResponse{{Success: false, Error: errNotRegistered}},
	}}
	tokenStore := &fakeTokenStore{tokens: map[string][]string{"u1": {"a"}}}
	result := newPushFixture(messenger, tokenStore).SendToUser(t.Context(), "u1", &Notification{Title: "hi"}, WithoutAutoCleanup())

	require.NoError(t, result.Err)
	assert.Equal(t, []DeviceToken{"a"}, result.FailedTokens)
	assert.Empty(t, tokenStore.removeCalls)
}

func TestSendToDeviceTokensCleansUpWhenUserIDProvided(t *testing.T) { //nolint:paralleltest // Swaps classification seams.
	swapClassificationSeams(t)
	messenger := &fakeMessenger{response: &fcm.BatchResponse{
		FailureCount: 1,
		Responses:    []*fcm.SendResponse{{Success: false, Error: errNotRegistered}},
	}}
	tokenStore := &fakeTokenStore{tokens: map[string][]string{}}
	client := newPushFixture(messenger, tokenStore)

	result := client.SendToDeviceTokens(t.Context(), []DeviceToken{"a"}, &Notification{Title: "hi"})
	require.NoError(t, result.Err)
	assert.Empty(t, tokenStore.removeCalls, "without an owning user there is nothing to clean up")

	result = client.SendToDeviceTokens(t.Context(), []DeviceToken{"a"}, &Notification{Title: "hi"}, WithUserID("u1"))
	require.NoError(t, result.Err)
	assert.Equal(t, []string{"u1/a"}, tokenStore.removeCalls)
}

func TestSendToUserBatchFailureMarksEverythingFailed(t *testing.T) { //nolint:paralleltest // Swaps classification seams.
	swapClassificationSeams(t)
	messenger := &fakeMessenger{err: errBackendDown}
	tokenStore := &fakeTokenStore{tokens: map[string][]string{"u1": {"a", "b", "c"}}}
	result := newPushFixture(messenger, tokenStore).SendToUser(t.Context(), "u1", &Notification{Title: "hi"})

	require.ErrorIs(t, result.Err, errBackendDown)
	assert.Zero(t, result.SuccessCount)
	assert.Equal(t, 3, result.FailureCount)
	assert.Equal(t, []DeviceToken{"a", "b", "c"}, result.FailedTokens)
	assert.Empty(t, tokenStore.removeCalls, "a batch level failure says nothing about individual tokens")
	require.Len(t, messenger.calls, 1, "a failed batch is never retried")
}

func TestSendToUserNoRegisteredTokensSkipsTransport(t *testing.T) {
	t.Parallel()
	messenger := new(fakeMessenger)
	result := newPushFixture(messenger, &fakeTokenStore{tokens: map[string][]string{}}).SendToUser(t.Context(), "u1", &Notification{Title: "hi"})

	require.NoError(t, result.Err)
	assert.Zero(t, result.SuccessCount)
	assert.Zero(t, result.FailureCount)
	assert.Equal(t, "no device tokens registered", result.Message)
	assert.Empty(t, messenger.calls)
}

func TestSendToUserTokenResolutionFailure(t *testing.T) {
	t.Parallel()
	messenger := new(fakeMessenger)
	storeErr := errors.New("store is down")
	result := newPushFixture(messenger, &fakeTokenStore{readErr: storeErr}).SendToUser(t.Context(), "u1", &Notification{Title: "hi"})

	require.ErrorIs(t, result.Err, storeErr)
	assert.Equal(t, "failed to resolve device tokens", result.Message)
	assert.Empty(t, messenger.calls)
}

func TestSendToUserEmptyUserID(t *testing.T) {
	t.Parallel()
	result := newPushFixture(new(fakeMessenger), new(fakeTokenStore)).SendToUser(t.Context(), "", &Notification{Title: "hi"})

	require.Error(t, result.Err)
}

func TestReconcileContinuesPastFailures(t *testing.T) {
	t.Parallel()
	tokenStore := &fakeTokenStore{removeErrs: map[string]error{"b": errors.New("write failed")}}
	client := newPushFixture(new(fakeMessenger), tokenStore)

	client.reconcile(t.Context(), "u1", []DeviceToken{"a", "b", "c"})
	assert.Equal(t, []string{"u1/a", "u1/c"}, tokenStore.removeCalls)

	client.reconcile(t.Context(), "u1", []DeviceToken{"a"})
	assert.Equal(t, []string{"u1/a", "u1/c", "u1/a"}, tokenStore.removeCalls, "removal is idempotent at the store level")
}

func TestClassifyFailure(t *testing.T) { //nolint:paralleltest // Swaps classification seams.
	swapClassificationSeams(t)

	assert.Equal(t, failurePermanentInvalid, classifyFailure(errNotRegistered))
	assert.Equal(t, failureTransient, classifyFailure(errBackendDown))
	assert.Equal(t, failureUnknown, classifyFailure(errSomethingCryptic))
	assert.Equal(t, failureUnknown, classifyFailure(nil))
}
