package keyout

// Test hooks for the external test package.

var WithSleep = withSleep

const DefaultSettlePerChar = defaultSettlePerChar
