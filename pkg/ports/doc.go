/*
Package ports defines the driven ports (interfaces) of the device control layer.

These interfaces decouple the dispatcher, lifecycle and polling code from the concrete
channel to the device, so the same logic drives a real ADB connection or a scripted fake.

# Key Interfaces

  - Transport: executes shell commands on the device and can reconnect in place.
  - InputBackend: one mechanism for injecting taps, swipes and drags.
  - AppBackend: foreground query and launch/kill for one backend family.
  - ProfileLocker: guarantees a profile is driven by exactly one session.
*/
package ports
