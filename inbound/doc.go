// Package inbound accepts webhook callback deliveries and turns them into
// row-created events for the core service.
//
// Deliveries are acknowledged at most once per nonce: the dispatcher claims
// the nonce before handling and keeps the acknowledgement even when row
// processing fails, so the sheet platform never redelivers a batch because
// one row could not be relayed.
package inbound
