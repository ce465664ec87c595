package handler

var (
	helpText = "欢迎使用 OrderSong-Go !\n" +
		"这是一个点歌机器人, 搜索歌曲并以语音消息发送\n" +
		"直接发送 歌曲名/关键词 即可开始点歌\n\n" +
		"使用方法:\n" +
		"/song <关键词> - 搜索并点歌\n" +
		"/rmcache <trackID|all> - 清除语音缓存 (管理员)\n" +
		"/about - 关于本机器人\n\n" +
		"搜索结果出来后:\n" +
		"回复序号点歌, p/n 翻页, 0 退出"
	aboutText = "OrderSong-Go\n版本: %s\n编译日期: %s\n运行环境: %s"

	searching        = "搜索中..."
	noResults        = "未找到结果"
	searchFailed     = "搜索失败, 请稍后重试"
	inputKeyword     = "请输入搜索关键词"
	exitDone         = "已退出点歌"
	noMorePages      = "没有更多结果了"
	alreadyFirstPage = "已经是第一页了"
	indexOutOfRange  = "序号超出范围, 已退出点歌, 请重新搜索"
	selectionExpired = "点歌已超时, 请重新搜索"
	fetchingSong     = "正在获取歌曲, 请稍候..."

	durationTooLong  = "歌曲时长 %d 秒, 超过上限 %d 秒, 无法发送"
	noTranscoder     = "未配置转码组件, 无法发送该歌曲"
	resolveFailed    = "获取歌曲播放链接失败"
	upstreamFailed   = "上游接口请求失败, 请稍后重试"
	sendFailed       = "发送失败, 请稍后重试"
	deliverFailed    = "发送失败\n%v"
	rmcacheUsage     = "请输入歌曲ID, 或使用 /rmcache all 清空所有缓存"
	rmcacheAllDone   = "已清空语音缓存, 共 %d 条"
	rmcacheTrackDone = "已清除歌曲 %s 的语音缓存"
	rmcacheFailed    = "清除缓存失败"
	adminOnly        = "仅管理员可操作"
)
