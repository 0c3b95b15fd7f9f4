/*
Package domain contains the core models shared by every layer of the device control stack.

It is kept free of I/O: the types here describe what is asked of the device and how a
failure is to be treated, not how commands reach it.

# Key Entities

  - Command: an immutable request (tap, swipe, drag, query, app start/stop).
  - Point: an integer pixel coordinate on the device screen.
  - FailureClass: Transient, Protocol or Fatal; decides retry vs. reconnect vs. abort.
  - TakeoverError: the terminal "human intervention required" signal.
  - Frame: a decoded screenshot as a 3-channel pixel array.
*/
package domain
