package services

// Services defined in this package:
// - AuthService: dashboard login and refresh token rotation
// - ProfileService: viewer profile and parent active-child selection
// - GradebookService: the cached read shapes (grades, assignments, upcoming,
//   recent activity) composed from identity resolution, the upstream client
//   and the aggregator
