// Copyright 2024-2026 Aiku AI

// Package relay implements the core of the Telegram-Discord bridge: the
// per-event enrichment pipeline and the two directional orchestrators.
//
// # Event flow
//
// An inbound platform event is dispatched to the orchestrator for its
// direction. The orchestrator resolves the applicable bridges, runs the
// event through the pipeline to produce one prepared payload per bridge,
// invokes the outbound capability for each payload, and on success records
// the source/target id pair in the message map so later edits and deletes
// can find the relayed copies.
//
// # Core Types
//
// [TelegramHandler] reacts to Telegram updates and relays them to Discord.
//
// [DiscordHandler] reacts to Discord gateway events and relays them to
// Telegram, including cross-direction edit and delete propagation.
//
// [Context] is the mutable per-event accumulator threaded through the
// pipeline stages.
//
// # Failure isolation
//
// A failure while processing one bridge's payload never prevents the other
// bridges of the same event from being processed, and no failure is fatal
// to the orchestrator. Deleting an already-deleted message is treated as
// success, and an edit or delete with no stored correspondence is silently
// dropped.
//
// # Sub-packages
//
//   - telegramfmt renders Telegram formatting entities as Discord markdown.
//   - discordfmt converts Discord markdown to Telegram HTML.
package relay
