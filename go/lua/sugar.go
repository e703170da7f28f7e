package lua

var sugarRc = `
getmetatable("").__mod = function(a, b)
    if type(b) == 'table' then
        return string.format(a, unpack(b))
    end
    return string.format(a, b)
end

function hex(n) return '0x%x' % n end

function range(a, b, c)
    local i, stop, step = 0, a, 1
    if b ~= nil then
        if c ~= nil then step = c end
        i, stop = a, b
    end
    i = i - 1
    return function()
        i = i + step
        if (step > 0 and i < stop) or (step < 0 and i > stop) then
            return i
        end
    end
end

-- run_until(addr) runs to a temporary breakpoint
function run_until(addr)
    cmd('break ' .. addr)
    run()
    local s = wait()
    cmd('delete ' .. addr)
    return s
end
`
