package internal

const AppVersion = "1.0.2"
