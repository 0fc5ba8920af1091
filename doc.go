// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netsock provides a connection-oriented stream endpoint with
deterministic, bounded, byte-exact I/O over TCP sockets.

This package is designed to facilitate teaching and testing protocol
code that needs precise control over how many bytes each operation
moves, while measuring connection and transfer events via the
[log/slog] package.

# Features

- IPv4/IPv6 endpoint lifecycle: resolve, bind+listen, connect,
accept, close;

- single-attempt and repeat-until-complete transfers for raw bytes,
fixed-width element vectors with byte-order conversion, and
NUL-terminated text;

- per-receive timeouts, simulated packet loss for fault injection,
and injectable collaborators for deterministic tests.

# Design Documents

See the DESIGN.md file in the repository root.
*/
package netsock
