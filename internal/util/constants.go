package util

// gin.Context 中保存当前用户的键
const ContextUserKey = "user"
