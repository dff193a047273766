package usecase

// StartOfDay is exported for testing
var StartOfDay = startOfDay
