// Package ir provides the foundational types for pulsenet.
//
// This package contains type definitions, canonical serialization and
// content hashing only. All other internal packages import ir; ir imports
// nothing internal. This keeps the IR the bottom layer with no circular
// dependencies.
//
// Key design constraints:
//   - Levels are binary: Low or High. No other signal values exist.
//   - Declaration order is significant and preserved everywhere
//     (output order is the emission order of produced pulses).
//   - NO float types anywhere - counts and presses are int64.
//   - All JSON tags use snake_case.
//   - Hashes use RFC 8785 canonical JSON with domain separation.
package ir
