// Copyright (c) Dispatch Authors.
// Licensed under the MIT License.

/*
Package broker implements the in-process publish/subscribe message broker.

# Overview

The broker decouples event producers from agent consumers. Components publish
typed messages to named topics; interested components subscribe handlers to
topics. Delivery runs on a single managed background worker pulling from a
bounded FIFO queue, so a publisher never blocks on subscriber execution and a
slow consumer cannot grow memory without bound: publishing onto a full queue
fails fast with BROKER_SATURATED instead of blocking.

# Guarantees

  - Per-topic ordering: if publish(A) happens-before publish(B) from the same
    producer, subscribers observe A before B on that topic. Cross-topic
    ordering is unspecified.
  - Insertion-order invocation: subscribers of a topic are invoked in the
    order they subscribed, sequentially, on the delivery worker.
  - Isolation: a panicking subscriber is recovered and logged; it affects
    neither the remaining subscribers for that message nor later messages.
  - Unsubscribe: once Unsubscribe returns, the handle receives no further
    deliveries; an in-flight delivery to it either completed or is skipped.
  - Stop drains: Stop delivers everything already enqueued before returning,
    then refuses new publishes. Start after Stop resumes with a fresh queue.

Delivery is at-least-once within the process only; nothing survives a
restart, and there is no cross-process fan-out.
*/
package broker
